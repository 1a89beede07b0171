package customer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validInfo() Info {
	return Info{
		FullName:      "Asha Verma",
		Email:         "asha@example.com",
		Phone:         "9876543210",
		StreetAddress: "12 MG Road",
		City:          "Pune",
		State:         "MH",
		Pincode:       "411001",
	}
}

func TestInvalidFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Info)
		want   []string
	}{
		{"valid", func(i *Info) {}, nil},
		{"missing phone", func(i *Info) { i.Phone = "" }, []string{"phone"}},
		{"short phone", func(i *Info) { i.Phone = "12345" }, []string{"phone"}},
		{"alpha phone", func(i *Info) { i.Phone = "98765abcde" }, []string{"phone"}},
		{"blank name", func(i *Info) { i.FullName = "   " }, []string{"full_name"}},
		{"bad pincode", func(i *Info) { i.Pincode = "4110" }, []string{"pincode"}},
		{"empty pincode is allowed", func(i *Info) { i.Pincode = "" }, nil},
		{
			"everything missing",
			func(i *Info) { *i = Info{} },
			[]string{"full_name", "email", "phone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := validInfo()
			tt.mutate(&info)
			assert.Equal(t, tt.want, info.InvalidFields())
		})
	}
}

func TestAddress(t *testing.T) {
	assert.Equal(t, "12 MG Road, Pune, MH, 411001", validInfo().Address())

	partial := validInfo()
	partial.StreetAddress = ""
	partial.State = ""
	assert.Equal(t, "Pune, 411001", partial.Address())
}
