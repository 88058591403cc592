// Package main provides the airmap CLI.
//
// airmap fetches the air-quality sensors of the InPost parcel lockers, renders
// them on a Leaflet map and publishes the page to a bucket.
//
// Usage:
//
//	airmap run              generate and publish the map once
//	airmap serve            trigger runs over HTTP (GET|POST /generate)
//	airmap version
package main

func main() {
	Execute()
}
