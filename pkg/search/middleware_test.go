package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func dest(v Values) func(Values) Values {
	return func(Values) Values { return Clone(v) }
}

func TestRetain(t *testing.T) {
	current := Values{"lang": "en", "page": 2, "q": "go"}

	got := Run(current, []Middleware{Retain("lang")}, dest(Values{"page": 1}))
	assert.Equal(t, Values{"lang": "en", "page": 1}, got)

	got = Run(current, []Middleware{Retain()}, dest(Values{"page": 1}))
	assert.Equal(t, Values{"lang": "en", "page": 1, "q": "go"}, got)
}

func TestStrip(t *testing.T) {
	got := Run(Values{}, []Middleware{Strip(Values{"page": 1, "sort": "asc"})}, dest(Values{"page": 1, "sort": "desc"}))
	assert.Equal(t, Values{"sort": "desc"}, got)
}

func TestStripKeys(t *testing.T) {
	got := Run(Values{}, []Middleware{StripKeys("debug")}, dest(Values{"debug": true, "a": 1}))
	assert.Equal(t, Values{"a": 1}, got)

	got = Run(Values{}, []Middleware{StripKeys()}, dest(Values{"debug": true}))
	assert.Equal(t, Values{}, got)
}

func TestRunOrder(t *testing.T) {
	current := Values{"lang": "en", "page": 1}
	mws := []Middleware{Strip(Values{"page": 1}), Retain("page", "lang")}

	got := Run(current, mws, dest(Values{}))
	assert.Equal(t, Values{"lang": "en"}, got)

	got = Run(current, nil, dest(Values{"x": 1}))
	assert.Equal(t, Values{"x": 1}, got)
}
