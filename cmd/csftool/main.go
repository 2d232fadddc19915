// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/usbarmory/csftool/hab"
)

type Config struct {
	csfKey string
	csfCrt string
	imgKey string
	imgCrt string

	table string
	index int

	input  string
	output string

	sdp  bool
	dcd  uint
	base uint

	debug bool
}

var conf *Config

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stdout)

	conf = &Config{}

	flag.Usage = func() {
		fmt.Printf("%s\n", usage)
	}

	flag.StringVar(&conf.csfKey, "A", "", "CSF signing private key in PEM format")
	flag.StringVar(&conf.csfCrt, "a", "", "CSF signing certificate in PEM format")
	flag.StringVar(&conf.imgKey, "B", "", "IMG signing private key in PEM format")
	flag.StringVar(&conf.imgCrt, "b", "", "IMG signing certificate in PEM format")
	flag.StringVar(&conf.table, "t", "", "SRK table")
	flag.IntVar(&conf.index, "x", -1, "index for SRK key (1-4)")
	flag.StringVar(&conf.input, "i", "", "image file w/ IVT header (e.g. imx file)")
	flag.StringVar(&conf.output, "o", "", "output file")

	flag.BoolVar(&conf.sdp, "s", false, "serial download mode")
	flag.UintVar(&conf.dcd, "D", hab.DCD_OFFSET, "DCD staging address for serial download mode")
	flag.UintVar(&conf.base, "z", 0, "base address added to key and signature pointers")
	flag.BoolVar(&conf.debug, "d", false, "debug information on boot header parsing")
}

func (c *Config) valid() error {
	var err *multierror.Error

	if len(c.csfKey) == 0 {
		err = multierror.Append(err, errors.New("missing CSF signing private key (-A)"))
	}

	if len(c.csfCrt) == 0 {
		err = multierror.Append(err, errors.New("missing CSF signing certificate (-a)"))
	}

	if len(c.imgKey) == 0 {
		err = multierror.Append(err, errors.New("missing IMG signing private key (-B)"))
	}

	if len(c.imgCrt) == 0 {
		err = multierror.Append(err, errors.New("missing IMG signing certificate (-b)"))
	}

	if len(c.table) == 0 {
		err = multierror.Append(err, errors.New("missing SRK table (-t)"))
	}

	if c.index < 1 || c.index > 4 {
		err = multierror.Append(err, errors.New("SRK key index must be between 1 and 4 (-x)"))
	}

	if len(c.input) == 0 {
		err = multierror.Append(err, errors.New("missing image file (-i)"))
	}

	if len(c.output) == 0 {
		err = multierror.Append(err, errors.New("missing output file (-o)"))
	}

	return err.ErrorOrNil()
}

func main() {
	flag.Parse()

	if err := conf.valid(); err != nil {
		fmt.Printf("%s\n", usage)
		log.Fatal(err)
	}

	if err := sign(); err != nil {
		log.Fatal(err)
	}

	log.Println(warning)
	log.Println(conf.output)
}
