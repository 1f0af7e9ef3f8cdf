package gunzip

import (
	"strings"
	"testing"
)

func TestOutputName(t *testing.T) {
	tests := []struct {
		name      string
		inputName string
		hdr       *TarHeader
		want      string
	}{
		{name: "gz extension", inputName: "test.gz", want: "test"},
		{name: "upper case extension", inputName: "TEST.GZ", want: "TEST"},
		{name: "tgz extension keeps tar", inputName: "test.tgz", want: "test.tar"},
		{name: "tar.gz extension", inputName: "test.tar.gz", want: "test.tar"},
		{name: "unknown extension", inputName: "test", want: "test.decompressed"},
		{name: "no input name", inputName: "", want: defaultDecompressionName},
		{name: "stdin", inputName: "-", want: defaultDecompressionName},
		{name: "only extension", inputName: ".gz", want: defaultDecompressionName},
		{name: "line break", inputName: "a\nb.gz", want: defaultDecompressionName},
		{name: "too long", inputName: strings.Repeat("a", 300) + ".gz", want: defaultDecompressionName},
		{name: "tar entry name", inputName: "test.tar.gz", hdr: &TarHeader{Name: "docs/readme.txt"}, want: "readme.txt"},
		{name: "invalid tar entry name with tar.gz", inputName: "test.tar.gz", hdr: &TarHeader{Name: "../"}, want: "test"},
		{name: "invalid tar entry name with tgz", inputName: "test.tgz", hdr: &TarHeader{Name: ""}, want: "test"},
		{name: "invalid tar entry name with gz", inputName: "test.gz", hdr: &TarHeader{Name: "."}, want: "test"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := outputName(test.inputName, test.hdr); got != test.want {
				t.Errorf("outputName() = %q, want %q", got, test.want)
			}
		})
	}
}
