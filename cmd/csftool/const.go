// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

const usage = `Usage: csftool [OPTIONS]
  -h    show this help

  -A string
        CSF signing private key in PEM format
  -a string
        CSF signing certificate in PEM format
  -B string
        IMG signing private key in PEM format
  -b string
        IMG signing certificate in PEM format
  -t string
        SRK table
  -x int
        index for SRK key (1-4) (default -1)
  -i string
        image file w/ IVT header (e.g. imx file)
  -o string
        output file

  -s    serial download mode
  -D uint
        DCD staging address for serial download mode (default 0x00910000)
  -z uint
        base address added to key and signature pointers (default 0)
  -d    debug information on boot header parsing
`

const warning = `
████████████████████████████████████████████████████████████████████████████████

                                **  WARNING  **

The generated CSF authenticates executables with keys matching the SRK hash
fused on the target device.

Fusing SRK hashes on i.MX SoCs is an **irreversible** action that permanently
commits verification keys to the hardware. Any error in the signing PKI, or
its loss, results in a device incapable of executing unsigned code.

████████████████████████████████████████████████████████████████████████████████`
