package web

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, s Status) string {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, ViewOf(s)))
	return buf.String()
}

func TestRender_Empty(t *testing.T) {
	page := render(t, Status{Names: []string{}})
	assert.Contains(t, page, "No participants yet. Add some names above!")
	assert.Contains(t, page, `<span id="participant-count">(0)</span>`)
	assert.Contains(t, page, `<button id="draw-button" disabled>`)
	assert.Contains(t, page, `<button id="reset-button" disabled>`)
	assert.Contains(t, page, `maxlength="30"`)
}

func TestRender_Roster(t *testing.T) {
	page := render(t, Status{
		Names:    []string{"Ann", "<b>Bo</b>"},
		Count:    2,
		Winner:   "Ann",
		Drawn:    true,
		CanDraw:  true,
		CanReset: true,
	})
	assert.NotContains(t, page, "No participants yet")
	assert.Contains(t, page, `data-name="Ann"`)
	assert.Contains(t, page, "&lt;b&gt;Bo&lt;/b&gt;")
	assert.NotContains(t, page, "<b>Bo</b>")
	assert.Contains(t, page, `<button id="draw-button">`)
	assert.Contains(t, page, `<button id="reset-button">`)
	assert.Contains(t, page, "<strong>Ann</strong>")
}
