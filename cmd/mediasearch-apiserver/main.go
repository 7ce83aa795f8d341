// The mediasearch-apiserver binary serves the cross-modal search API.
package main

import "github.com/kart-io/mediasearch/internal/apiserver"

func main() {
	apiserver.NewApp().Run()
}
