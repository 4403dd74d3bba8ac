// Package notification holds named event notifications rendered from
// printf-style templates and publishes them in the background.
package notification
