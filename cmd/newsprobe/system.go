package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pevans/newsprobe/config"
)

func handleInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing config file")
	fs.Parse(args)

	configPath, err := config.ConfigFilePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	created, err := config.WriteDefaultConfigFile(*force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  ✗ Failed to create config file: %v\n", err)
		os.Exit(1)
	}

	if !created {
		fmt.Printf("  Config file: %s (already exists)\n", configPath)
		fmt.Println()
		fmt.Println("Use 'newsprobe init -force' to overwrite it")
		return
	}

	fmt.Printf("  ✓ Config file: %s\n", configPath)
	fmt.Println()
	fmt.Println("You can now:")
	fmt.Println("  - Crawl Wikipedia with 'newsprobe crawl'")
	fmt.Println("  - Validate candidate sources with 'newsprobe validate'")
}

func handleConfigShow(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	configPath, _ := config.ConfigFilePath()
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("# Config file: %s\n", configPath)
	} else {
		fmt.Printf("# Config file: %s (not found, using defaults)\n", configPath)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to marshal config: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(data))
}
