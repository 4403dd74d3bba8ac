package mqtt

import "testing"

func TestTopics_Builders(t *testing.T) {
	topics := Topics{Prefix: "devices", DeviceID: "abc"}

	tests := []struct {
		got  string
		want string
	}{
		{topics.Status(), "devices/abc/status"},
		{topics.Properties(), "devices/abc/property"},
		{topics.Notification("counter"), "devices/abc/notification/counter"},
		{topics.Event("status"), "devices/abc/event/status"},
		{topics.Reply("r1"), "devices/abc/reply/r1"},
		{topics.PropertySetFilter(), "devices/abc/property/set/+"},
		{topics.RPCPostFilter(), "devices/abc/rpc/post/+"},
		{topics.RPCGetFilter(), "devices/abc/rpc/get/+"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestTopics_ParseInbound(t *testing.T) {
	topics := Topics{Prefix: "devices", DeviceID: "abc"}

	tests := []struct {
		topic    string
		wantKind InboundKind
		wantName string
	}{
		{"devices/abc/property/set/cloudNumber", InboundPropertySet, "cloudNumber"},
		{"devices/abc/rpc/post/incrementCloudNumber", InboundRPCPost, "incrementCloudNumber"},
		{"devices/abc/rpc/get/getHalfCloudNumber", InboundRPCGet, "getHalfCloudNumber"},
		{"devices/other/rpc/get/x", InboundUnknown, ""},
		{"devices/abc/rpc/put/x", InboundUnknown, ""},
		{"devices/abc/rpc/get/", InboundUnknown, ""},
		{"devices/abc/rpc/get/a/b", InboundUnknown, ""},
		{"devices/abc/status", InboundUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			kind, name := topics.ParseInbound(tt.topic)
			if kind != tt.wantKind || name != tt.wantName {
				t.Errorf("ParseInbound() = (%v, %q), want (%v, %q)", kind, name, tt.wantKind, tt.wantName)
			}
		})
	}
}
