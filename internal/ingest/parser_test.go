package ingest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	text := "\ufeffDate,Campaign,Impressions\r\n" +
		"2024-01-01,A,100\r\n" +
		"\r\n" +
		"2024-01-02,B\r\n" +
		"2024-01-03,C,300,extra\r\n" +
		"Totals,,400\r\n" +
		"Report Description: generated\r\n"

	headers, rows := Parse(text, DefaultFooterMarkers)
	assert.Equal(t, []string{"Date", "Campaign", "Impressions"}, headers)
	require.Len(t, rows, 3)

	assert.Equal(t, "A", rows[0].Get("Campaign"))
	assert.Equal(t, "100", rows[0].Get("Impressions"))
	assert.Equal(t, "", rows[1].Get("Impressions"), "missing trailing cell")
	assert.Equal(t, "300", rows[2].Get("Impressions"))
	assert.Len(t, rows[2].Values, 3, "extra cells are cut")
	assert.Equal(t, "", rows[0].Get("Nope"))
}

func TestParseRowAndKeyCounts(t *testing.T) {
	for n := 0; n < 5; n++ {
		for h := 1; h < 4; h++ {
			t.Run(fmt.Sprintf("n%d_h%d", n, h), func(t *testing.T) {
				hdr := make([]string, h)
				for i := range hdr {
					hdr[i] = fmt.Sprintf("c%d", i)
				}
				lines := []string{strings.Join(hdr, ",")}
				for i := 0; i < n; i++ {
					lines = append(lines, fmt.Sprintf("v%d", i))
				}
				lines = append(lines, "Totals,1")
				_, rows := Parse(strings.Join(lines, "\n"), DefaultFooterMarkers)
				require.Len(t, rows, n)
				for _, r := range rows {
					assert.Len(t, r.Values, h)
					assert.Len(t, r.Headers, h)
				}
			})
		}
	}
}

func TestParseNoQuoteHandling(t *testing.T) {
	_, rows := Parse("Campaign,Revenue\n\"Brand, US\",10\n", DefaultFooterMarkers)
	require.Len(t, rows, 1)
	assert.Equal(t, "\"Brand", rows[0].Get("Campaign"))
	assert.Equal(t, "US\"", rows[0].Get("Revenue"))
}

func TestParseEmpty(t *testing.T) {
	for _, in := range []string{"", "\n\n", "Totals,1,2\nReport Description"} {
		headers, rows := Parse(in, DefaultFooterMarkers)
		assert.Nil(t, headers)
		assert.Empty(t, rows)
	}
}

func TestParseCustomFooter(t *testing.T) {
	_, rows := Parse("A\n1\nGrand Total\n", []string{"Grand Total"})
	require.Len(t, rows, 1)
	_, rows = Parse("A\n1\nTotals\n", nil)
	require.Len(t, rows, 2)
}
