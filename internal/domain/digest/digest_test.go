package digest

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPrompt(t *testing.T) {
	Convey("Given prompt texts", t, func() {
		a := Prompt("Question: What is 2+2?\nAnswer:")
		b := Prompt("Question: What is 2+2?\nAnswer:")
		c := Prompt("Question: What is 2+3?\nAnswer:")

		Convey("Then identical text hashes identically", func() {
			So(a, ShouldEqual, b)
		})

		Convey("Then distinct text hashes differently", func() {
			So(a, ShouldNotEqual, c)
		})

		Convey("Then the digest is fixed width hex", func() {
			So(len(a), ShouldEqual, 2*Size)
			So(len(Prompt("")), ShouldEqual, 2*Size)
			So(a, ShouldNotContainSubstring, " ")
		})
	})
}
