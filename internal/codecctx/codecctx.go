// Package codecctx carries the handful of image parameters a
// compression adapter needs beyond its raw byte stream (CCITT Group 4
// needs ImageWidth; most adapters ignore it entirely). It has no
// dependencies so both the root package and every internal adapter
// package can import it without creating a cycle.
package codecctx

// Context describes the image a chunk belongs to.
type Context struct {
	Width           int
	Height          int
	BitsPerSample   int
	SamplesPerPixel int
}
