// Package publisher sends the device's fixed periodic status message.
package publisher
