//go:build windows

package main

import (
	. "golang.org/x/sys/windows"
	"os"
)

func init() {
	for _, v := range [2]Handle{
		Handle(os.Stdout.Fd()),
		Handle(os.Stderr.Fd()),
	} {
		var mode uint32
		if err := GetConsoleMode(v, &mode); err != nil {
			pNoCodesDefault = true
			break
		}
		if mode&ENABLE_VIRTUAL_TERMINAL_PROCESSING == 0 {
			if err := SetConsoleMode(v, mode|ENABLE_VIRTUAL_TERMINAL_PROCESSING); err != nil {
				pNoCodesDefault = true
				break
			}
		}
	}
}
