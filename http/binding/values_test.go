package binding

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upper string

func (u *upper) UnmarshalValue(s string) error {
	*u = upper(strings.ToUpper(s))
	return nil
}

func TestValuesBasicTypes(t *testing.T) {
	type entry struct {
		Author  string  `form:"author"`
		Rating  int     `form:"rating"`
		Score   float64 `form:"score"`
		Publish bool    `form:"publish"`
		Page    uint    `form:"page"`
	}

	tests := []struct {
		name    string
		values  url.Values
		want    entry
		wantErr bool
	}{
		{
			name:   "all fields",
			values: url.Values{"author": {"ann"}, "rating": {"4"}, "score": {"1.5"}, "publish": {"true"}, "page": {"2"}},
			want:   entry{Author: "ann", Rating: 4, Score: 1.5, Publish: true, Page: 2},
		},
		{
			name:   "checkbox on",
			values: url.Values{"publish": {"on"}},
			want:   entry{Publish: true},
		},
		{
			name:    "invalid integer",
			values:  url.Values{"rating": {"many"}},
			wantErr: true,
		},
		{
			name:    "invalid boolean",
			values:  url.Values{"publish": {"maybe"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got entry
			err := Values(tt.values, &got)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValuesDefaultsSlicesAndNested(t *testing.T) {
	type address struct {
		City string `form:"city"`
	}
	type profile struct {
		Tags    []string `form:"tags"`
		IDs     []int    `form:"ids"`
		Locale  string   `form:"locale" default:"en"`
		Nick    *string  `form:"nick"`
		Home    address  `form:"home"`
		Work    *address `form:"work"`
		Code    upper    `form:"code"`
		Ignored string   `form:"-"`
	}

	values := url.Values{
		"tags":      {"go,php"},
		"ids":       {"1", "2", "3"},
		"nick":      {"neo"},
		"home.city": {"Paris"},
		"code":      {"abc"},
		"Ignored":   {"x"},
	}

	var got profile
	require.NoError(t, Values(values, &got))

	assert.Equal(t, []string{"go", "php"}, got.Tags)
	assert.Equal(t, []int{1, 2, 3}, got.IDs)
	assert.Equal(t, "en", got.Locale)
	require.NotNil(t, got.Nick)
	assert.Equal(t, "neo", *got.Nick)
	assert.Equal(t, "Paris", got.Home.City)
	assert.Nil(t, got.Work)
	assert.Equal(t, upper("ABC"), got.Code)
	assert.Empty(t, got.Ignored)
}

func TestParseRejectsNonStruct(t *testing.T) {
	var s string
	assert.Error(t, Values(url.Values{}, &s))
	assert.Error(t, Values(url.Values{}, nil))
}

func TestQueryValidates(t *testing.T) {
	type listParams struct {
		Page  int    `query:"page" default:"1" validate:"gte=1"`
		Order string `query:"order" validate:"omitempty,oneof=asc desc"`
	}

	var ok listParams
	require.NoError(t, Query(httptest.NewRequest("GET", "/?order=desc", nil), &ok))
	assert.Equal(t, listParams{Page: 1, Order: "desc"}, ok)

	var bad listParams
	err := Query(httptest.NewRequest("GET", "/?order=sideways", nil), &bad)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Order", verrs[0].Field)
	assert.Contains(t, verrs[0].Message, "must be one of")
}
