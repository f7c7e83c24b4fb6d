// Notfound serves a site and intercepts its not-found responses.
//
// A 404 from the site, or an error that classifies as "not found", is turned
// into a permanent redirect when the failed URL has a saved redirect record.
// Otherwise the miss is logged and the configured fallback page is served
// with status 404.
//
// Usage:
//
//	# Start the service
//	notfound serve --config /etc/notfound/config.yaml
//
//	# Check the configuration
//	notfound validate
//
//	# Show what a 404 on a URL would do
//	notfound redirects check https://www.example.com/old/page
//
//	# Load redirect records into the provider database
//	notfound redirects import legacy.yaml
//
//	# Most requested missing paths of the last week
//	notfound misses summary --since 168h
//
//	# Show version information
//	notfound version
package main

func main() {
	Execute()
}
