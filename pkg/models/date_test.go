package models

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestDateScan(t *testing.T) {
	tests := []struct {
		name    string
		src     interface{}
		want    string
		wantErr bool
	}{
		{name: "plain text", src: "2024-03-10", want: "2024-03-10"},
		{name: "bytes", src: []byte("2024-03-10"), want: "2024-03-10"},
		{name: "iso timestamp", src: "2024-03-10T14:30:00Z", want: "2024-03-10"},
		{name: "sqlite timestamp", src: "2024-03-10 14:30:00", want: "2024-03-10"},
		{name: "time value", src: time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC), want: "2024-03-10"},
		{name: "five digit year", src: "19671-10-03", wantErr: true},
		{name: "garbage", src: "yesterday", wantErr: true},
		{name: "null", src: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			err := d.Scan(tt.src)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Scan(%v) = %v, want error", tt.src, d)
				}
				return
			}
			if err != nil {
				t.Fatalf("Scan(%v): %v", tt.src, err)
			}
			if got := d.String(); got != tt.want {
				t.Errorf("Scan(%v) = %s, want %s", tt.src, got, tt.want)
			}
		})
	}
}

func TestDateValue(t *testing.T) {
	v, err := MaxDate.Value()
	if err != nil || v != "9999-12-31" {
		t.Errorf("MaxDate.Value() = %v, %v", v, err)
	}

	for _, d := range []Date{
		MaxDate.AddDays(1),
		{civil.Date{Year: 0, Month: time.December, Day: 31}},
		{civil.Date{Year: 2024, Month: time.February, Day: 30}},
	} {
		if v, err := d.Value(); err == nil {
			t.Errorf("Value() of %v = %v, want error", d.Date, v)
		}
	}
}
