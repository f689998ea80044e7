package main

import (
	"flag"
	"os"
)

func handleSources(a *app, args []string) int {
	fs := flag.NewFlagSet("sources", flag.ExitOnError)
	fs.Parse(args)

	printSourceTable(os.Stdout, a.cfg.Sources, a.cfg.Site.SiteName)
	return 0
}
