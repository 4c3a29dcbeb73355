// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package main

import (
	"fmt"
	"runtime"
)

var (
	company           = "Blockwatch Data Inc."
	orgUrl            = "blockwatch.cc"
	orgName           = "Blockwatch"
	appName           = "csapi"
	apiVersion        = "v1-2024-03-01"
	version    string = "v1.0"
	commit     string = "dev"
	envprefix         = "CS"
)

func UserAgent() string {
	return fmt.Sprintf("%s.%s/%s.%s",
		appName,
		orgUrl,
		version,
		commit,
	)
}

func printVersion() {
	fmt.Printf("%s CS API %s -- %s\n", orgName, version, commit)
	fmt.Printf("(c) Copyright 2020-2024 -- %s\n", company)
	fmt.Printf("Go version (client): %s\n", runtime.Version())
}
