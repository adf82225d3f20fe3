package restapi

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

const (
	compressMinBytes = 1024
	compressLevel    = 6
)

// compressedTypes are the decoded views and the metrics exposition.
var compressedTypes = []string{"application/json", "text/plain"}

// CompressionMiddleware gzips JSON and text responses of at least
// compressMinBytes for clients that accept it.
func CompressionMiddleware(next http.Handler) http.Handler {
	wrap, err := gzhttp.NewWrapper(
		gzhttp.MinSize(compressMinBytes),
		gzhttp.CompressionLevel(compressLevel),
		gzhttp.ContentTypes(compressedTypes),
	)
	if err != nil {
		// Only reachable with invalid constant options.
		panic(err)
	}
	return wrap(next)
}
