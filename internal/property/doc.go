// Package property holds the device's named numeric properties and keeps
// the cloud in sync with them.
//
// Values are fixed-point: a property stores an int64 raw value and a scale,
// and its value is raw/scale. A property is either synced on its own
// interval or belongs to exactly one group, which syncs all its members on
// the group's interval (as one message when the group is a batch).
//
// Remote writes go through Registry.OnRemoteUpdate, which returns one of
// four stable outcomes: Success, NotWritable, ParseError, NotFound.
package property
