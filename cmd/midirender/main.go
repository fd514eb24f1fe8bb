package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Garik-/musicgen/pkg/playback"
	"github.com/Garik-/musicgen/pkg/smf"
)

var (
	inFlag  = flag.String("i", "", "Input midi file")
	sfFlag  = flag.String("sf2", "", "SoundFont file used for synthesis")
	outFlag = flag.String("o", "", "Output wav file")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s \n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *inFlag == "" || *sfFlag == "" || *outFlag == "" {
		flag.Usage()
		return
	}

	data, err := os.ReadFile(*inFlag)
	if err != nil {
		log.Fatal(err)
	}

	notes, err := smf.NewDecoder().Decode(data)
	if errors.Is(err, smf.ErrNotMidi) {
		log.Fatalf("%s is not a midi file", *inFlag)
	}
	if len(notes) == 0 {
		log.Fatalf("%s contains no notes", *inFlag)
	}

	log.Printf("notes: %d, duration: %.2fs", len(notes), playback.Duration(playback.Plan(notes)))

	sf2, err := os.Open(*sfFlag)
	if err != nil {
		log.Fatal(err)
	}

	renderer, err := playback.NewRenderer(sf2)
	sf2.Close()
	if err != nil {
		log.Fatal(err)
	}

	left, right := renderer.Render(notes)

	out, err := os.OpenFile(*outFlag, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.ModePerm)
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	if err = playback.WriteWAV(out, left, right, playback.SampleRate); err != nil {
		log.Fatal(err)
	}
}
