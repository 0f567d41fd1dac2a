// Package storage keeps uploaded blueprint images and their average colors on
// disk.
//
// Each upload is identified by a UUID and stored as two files in one
// directory:
//
//	blueprint_image_{id}.jpeg   the uploaded bytes, unmodified
//	blueprint_image_{id}.color  the scene average color as "r,g,b,a"
//
// The .jpeg suffix is kept for every upload regardless of its real format;
// readers sniff the content.
//
// # Thread Safety
//
// Store is safe for concurrent use. Writes go through a temporary file and a
// rename, so readers never observe a half-written file. Decoded images are
// cached in memory until Delete or Evict.
package storage
