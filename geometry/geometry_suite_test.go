package geometry_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestGeometry(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Geometry Suite")
}
