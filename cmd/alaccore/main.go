/*
   Copyright Mycophonic.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Command alaccore encodes and decodes WAV files against the ALAC codec
// implemented by github.com/mycophonic/saprobe-alac, and can dump the box
// structure of an existing M4A container for debugging.
//
// Usage:
//
//	alaccore encode -in source.wav -out encoded.m4a
//	alaccore decode -in encoded.m4a -out decoded.wav
//	alaccore inspect encoded.m4a
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
)

// errUsage flags command-line misuse (missing/invalid flags), distinct from
// a failure encountered while doing the actual encode/decode/inspect work.
var errUsage = errors.New("usage error")

func main() {
	log.SetFlags(0)
	log.SetPrefix("alaccore: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error

	switch os.Args[1] {
	case "encode":
		err = runEncode(os.Args[2:])
	case "decode":
		err = runDecode(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: alaccore <encode|decode|inspect> [flags]")
}

//nolint:gochecknoglobals
var (
	encodeFlags  = flag.NewFlagSet("encode", flag.ExitOnError)
	decodeFlags  = flag.NewFlagSet("decode", flag.ExitOnError)
	inspectFlags = flag.NewFlagSet("inspect", flag.ExitOnError)
)
