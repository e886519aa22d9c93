package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTableRows(t *testing.T) {
	doc := `<html><body>
	<div class="wrap">
	<table class="splits" id="mlb">
	  <tr><th>Game</th><th>Handle&nbsp;%</th><th>Bets %</th></tr>
	  <tr class="odd">
	    <td><b>MIL</b> @ <span>STL</span></td>
	    <td align="center">62%</td>
	    <td>45%</td>
	  </tr>
	</table>
	</body></html>`

	rows := extractTableRows(doc)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Game", "Handle %", "Bets %"}, rows[0])
	assert.Equal(t, []string{"MIL @ STL", "62%", "45%"}, rows[1])
}

func TestExtractTableRowsHandlesSoup(t *testing.T) {
	// Unclosed cells and a missing </table>, as served in the wild.
	doc := `<table><tr><td>NYY<td>58%<tr><td>BOS<td>41%`
	rows := extractTableRows(doc)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"NYY", "58%"}, rows[0])
	assert.Equal(t, []string{"BOS", "41%"}, rows[1])
}

func TestExtractTableRowsNoTable(t *testing.T) {
	assert.Nil(t, extractTableRows("<html><body><p>maintenance</p></body></html>"))
}
