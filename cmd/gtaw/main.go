// Command gtaw is a small command line client for the Twitter API v2 built on
// the go-twitter-api-wrapper package.
package main

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	execute()
}
