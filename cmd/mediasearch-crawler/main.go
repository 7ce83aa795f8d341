// The mediasearch-crawler binary crawls a site and feeds the ingestion
// pipeline.
package main

import "github.com/kart-io/mediasearch/internal/crawler"

func main() {
	crawler.NewApp().Run()
}
