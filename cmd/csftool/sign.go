// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"log"
	"os"

	"github.com/usbarmory/csftool/hab"
)

func sign() (err error) {
	opts := hab.SignOptions{
		Index:  conf.index,
		Engine: hab.HAB_ENG_ANY,
		Offset: hab.DEFAULT_OFFSET,
		Base:   uint32(conf.base),
		SDP:    conf.sdp,
		DCD:    uint32(conf.dcd),
	}

	if opts.Table, err = os.ReadFile(conf.table); err != nil {
		return
	}

	if opts.CSFKeyPEMBlock, err = os.ReadFile(conf.csfKey); err != nil {
		return
	}

	if opts.CSFCertPEMBlock, err = os.ReadFile(conf.csfCrt); err != nil {
		return
	}

	if opts.IMGKeyPEMBlock, err = os.ReadFile(conf.imgKey); err != nil {
		return
	}

	if opts.IMGCertPEMBlock, err = os.ReadFile(conf.imgCrt); err != nil {
		return
	}

	imx, err := os.ReadFile(conf.input)

	if err != nil {
		return
	}

	if conf.debug {
		if err = dump(imx, opts.Offset); err != nil {
			return
		}
	}

	csf, err := hab.Sign(imx, opts)

	if err != nil {
		return
	}

	return os.WriteFile(conf.output, csf, 0600)
}

func dump(imx []byte, offset uint32) (err error) {
	ivt, err := hab.ParseIVT(imx)

	if err != nil {
		return
	}

	bd, err := hab.ParseBootData(imx, ivt)

	if err != nil {
		return
	}

	size, err := bd.CSFSize(len(imx), offset)

	if err != nil {
		return
	}

	log.Printf("IVT        entry:%#.8x dcd:%#.8x boot_data:%#.8x self:%#.8x csf:%#.8x", ivt.Entry, ivt.DCD, ivt.BootData, ivt.Self, ivt.CSF)
	log.Printf("boot data  start:%#.8x length:%d plugin:%d", bd.Start, bd.Length, bd.Plugin)
	log.Printf("image      size:%d reserved CSF size:%d", len(imx), size)

	return
}
