package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rafbgarcia/ssrshim/internal/bundler"
	"github.com/rafbgarcia/ssrshim/internal/config"
)

func runBuild(cfg *config.Config) error {
	fmt.Print("  Production build .. ")
	t := time.Now()
	res, err := bundler.Build(cfg.Bundler(true))
	if err != nil {
		fmt.Println("FAILED")
		fmt.Fprintf(os.Stderr, "build error: %s\n", err)
		return err
	}
	fmt.Printf("done [%s]\n", fmtDuration(time.Since(t)))
	fmt.Printf("  scripts: %s\n", strings.Join(res.Scripts, ", "))
	fmt.Printf("  styles:  %s\n", strings.Join(res.Styles, ", "))
	return nil
}

// fmtDuration formats a duration as a human-friendly string (e.g. "12ms", "1.3s").
func fmtDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
