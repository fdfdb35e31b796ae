// Command appraiser prepares, saves and prints jewelry appraisal
// certificates.
package main

import "github.com/mitchellmoss/appraisal-generator/internal/cli"

func main() {
	cli.Execute()
}
