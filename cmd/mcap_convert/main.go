// Command mcap_convert converts a log file between the legacy ".record"
// container and the segmented ".mcap" format this repo reads/writes
// natively. Direction is inferred from the input/output file extensions;
// any other combination exits 1.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/flowmesh/foxbridge/internal/logfile"
	"github.com/flowmesh/foxbridge/internal/logger"
	"github.com/rs/zerolog"
)

func main() {
	var input, output string
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	fs.StringVar(&input, "input", "", "input file path")
	fs.StringVar(&output, "output", "", "output file path")
	fs.Parse(os.Args[1:])

	if input == "" || output == "" {
		fmt.Fprintln(os.Stderr, "mcap_convert: --input and --output are both required")
		os.Exit(1)
	}

	if err := logger.Init(&logger.Config{Level: "info", Format: "json", ProcessName: "mcap_convert"}); err != nil {
		fmt.Fprintf(os.Stderr, "mcap_convert: logger init: %v\n", err)
		os.Exit(1)
	}
	log := logger.WithComponent("mcap_convert")

	inExt := strings.ToLower(filepath.Ext(input))
	outExt := strings.ToLower(filepath.Ext(output))

	supported := (inExt == ".record" && outExt == ".mcap") || (inExt == ".mcap" && outExt == ".record")
	if !supported {
		fmt.Fprintf(os.Stderr, "mcap_convert: unsupported conversion %s -> %s (only .record<->.mcap)\n", inExt, outExt)
		os.Exit(1)
	}

	if err := convert(input, output, log); err != nil {
		log.Error().Err(err).Str("input", input).Str("output", output).Msg("mcap_convert: conversion failed")
		os.Exit(1)
	}
	log.Info().Str("input", input).Str("output", output).Msg("mcap_convert: conversion complete")
}

// convert reads every message from src, preserving its schema/channel
// tables, and writes it out under the target container. Both containers
// share the same logical record model, so the same logfile.Reader/Writer
// pair handles both directions. The target is written with the source
// file's codec; the Writer stamps fresh log times on every message.
func convert(src, dst string, log zerolog.Logger) error {
	reader, err := logfile.Open(src, log)
	if err != nil {
		return err
	}
	defer reader.Close()

	summary, err := reader.Summary()
	if err != nil {
		log.Warn().Err(err).Msg("mcap_convert: summary read failed, falling back to full scan")
		summary, err = reader.Scan()
		if err != nil {
			return err
		}
		// Scan runs to EOF to tally stats; rewind so Next() can replay from
		// the top. Rewind clears the schema/channel tables Scan just built,
		// but Next() repopulates them as it walks back over those records.
		if err := reader.Rewind(); err != nil {
			return err
		}
	}

	codec, err := logfile.CodecByName(summary.Codec)
	if err != nil {
		codec = logfile.NoneCodec{}
	}
	reader.SetCodec(codec)

	writer, err := logfile.NewWriter(dst, codec)
	if err != nil {
		return err
	}

	for {
		msg, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = writer.Close()
			return err
		}
		if err := writer.WriteMessage(msg.Topic, msg.TypeName, msg.DescriptorSet, msg.PublishTimeNS, msg.Payload); err != nil {
			_ = writer.Close()
			return err
		}
	}

	return writer.Close()
}
