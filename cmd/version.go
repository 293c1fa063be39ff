package cmd

import "fmt"

// printVersionInfo displays version information.
// Called for the version command and --version flags.
func printVersionInfo() error {
	fmt.Printf("sage v%s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
	return nil
}
