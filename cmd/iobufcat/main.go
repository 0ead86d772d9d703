package main

import (
	"context"
	"flag"
	"os"

	"github.com/go-ini/ini"

	"github.com/grailbio/iobuf/cmd/iobufcat/cmd"
	"github.com/grailbio/iobuf/iofile"
	"github.com/grailbio/iobuf/iofile/s3file"
	"github.com/grailbio/iobuf/log"
)

func main() {
	help := flag.Bool("help", false, "Display help about this command")
	configPath := flag.String("config", "", "Path to an optional ini file providing [iobufcat] region/hash defaults")
	flag.Parse()
	if *help {
		cmd.PrintHelp()
		os.Exit(0)
	}

	region, hash := loadConfig(*configPath)
	cmd.DefaultHash = hash

	iofile.RegisterImplementation("s3", func() iofile.Implementation {
		provider, err := s3file.NewDefaultProvider(region)
		if err != nil {
			log.Fatal("iobufcat: building s3 client: ", err)
		}
		return s3file.NewImplementation(provider)
	})

	if err := cmd.Run(context.Background(), os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the "region" and "hash" keys of the [iobufcat]
// section of an optional ini file, falling back to defaults when the
// file is absent or a key is unset.
func loadConfig(path string) (region, hash string) {
	region, hash = "us-east-1", "sha256"
	if path == "" {
		return region, hash
	}
	f, err := ini.Load(path)
	if err != nil {
		log.Error.Printf("iobufcat: loading config %s: %v", path, err)
		return region, hash
	}
	sec := f.Section("iobufcat")
	if v := sec.Key("region").String(); v != "" {
		region = v
	}
	if v := sec.Key("hash").String(); v != "" {
		hash = v
	}
	return region, hash
}
