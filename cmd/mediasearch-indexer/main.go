// The mediasearch-indexer binary ingests a single fragment synchronously.
package main

import "github.com/kart-io/mediasearch/internal/indexer"

func main() {
	indexer.NewApp().Run()
}
