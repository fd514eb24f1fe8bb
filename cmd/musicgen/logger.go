package main

import "go.uber.org/zap"

var generateLog = zap.NewNop()
var seedLog = zap.NewNop()

func enableDebugLogging(l *zap.Logger) {
	generateLog = l
	seedLog = l
}
