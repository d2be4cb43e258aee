package timing

import "testing"

func TestMark_DoesNotPanicWithoutFilter(t *testing.T) {
	Mark("some.tag")
}
