package main

import (
	"fmt"
	"os"

	"github.com/dsoprea/go-logging"
	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"

	"github.com/dsoprea/go-sffs"
	"github.com/dsoprea/go-sffs/flash"
)

type rootParameters struct {
	Filepath   string `short:"f" long:"filepath" description:"File-path of flash-image file" required:"true"`
	PageSize   uint32 `long:"page-size" description:"Page size, in bytes" default:"256"`
	SectorSize uint32 `long:"sector-size" description:"Sector size, in bytes" default:"4096"`
}

var (
	rootArguments = new(rootParameters)
)

func main() {
	defer func() {
		if state := recover(); state != nil {
			err := log.Wrap(state.(error))
			log.PrintError(err)
			os.Exit(-1)
		}
	}()

	p := flags.NewParser(rootArguments, flags.Default)

	_, err := p.Parse()
	if err != nil {
		os.Exit(1)
	}

	raw, err := os.ReadFile(rootArguments.Filepath)
	log.PanicIf(err)

	dev := flash.NewMemFlashGeometry(
		uint32(len(raw)), rootArguments.PageSize, rootArguments.SectorSize, rootArguments.SectorSize)

	err = dev.LoadImage(raw)
	log.PanicIf(err)

	fs, err := sffs.Mount(dev)
	log.PanicIf(err)

	sizes, err := fs.ListFiles()
	log.PanicIf(err)

	fmt.Printf("%-10s %-10s %s\n", "file_id", "size", "human")
	for fileID, size := range sizes {
		fmt.Printf("%-10d %-10d %s\n", fileID, size, humanize.Bytes(uint64(size)))
	}
}
