package statement

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler collects every line by section for assertions.
type recordingHandler struct {
	header []string
	labels []string
	body   []string
	footer []string

	bodyErr error
}

func (h *recordingHandler) HeaderLine(line string) error {
	h.header = append(h.header, line)
	return nil
}

func (h *recordingHandler) LabelLine(line string) error {
	h.labels = append(h.labels, line)
	return nil
}

func (h *recordingHandler) BodyLine(line string) error {
	h.body = append(h.body, line)
	return h.bodyErr
}

func (h *recordingHandler) FooterLine(line string) error {
	h.footer = append(h.footer, line)
	return nil
}

func TestScan_RoutesSections(t *testing.T) {
	input := strings.Join([]string{
		"支付宝交易记录明细查询",
		"账号:[owner@example.com]",
		HeaderDelimiter,
		"交易号,商家订单号",
		"row one",
		"row two",
		FooterDelimiter,
		"共2笔记录",
		"用户:某人",
	}, "\n")

	h := &recordingHandler{}
	err := Scan(strings.NewReader(input), h)

	require.NoError(t, err)
	assert.Equal(t, []string{"支付宝交易记录明细查询", "账号:[owner@example.com]"}, h.header)
	assert.Equal(t, []string{"交易号,商家订单号"}, h.labels)
	assert.Equal(t, []string{"row one", "row two"}, h.body)
	assert.Equal(t, []string{"共2笔记录", "用户:某人"}, h.footer)
}

func TestScan_StripsCarriageReturns(t *testing.T) {
	input := "header\r\n" + HeaderDelimiter + "\r\nlabels\r\nrow\r\n" + FooterDelimiter + "\r\nfooter\r\n"

	h := &recordingHandler{}
	err := Scan(strings.NewReader(input), h)

	require.NoError(t, err)
	assert.Equal(t, []string{"header"}, h.header)
	assert.Equal(t, []string{"row"}, h.body)
	assert.Equal(t, []string{"footer"}, h.footer)
}

func TestScan_MissingDelimiters(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no delimiters at all", "just some text\nand more text"},
		{"header delimiter only", "header\n" + HeaderDelimiter + "\nlabels\nrow"},
		{"empty stream", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Scan(strings.NewReader(tc.input), &recordingHandler{})
			assert.ErrorIs(t, err, ErrDelimitersNotFound)
		})
	}
}

func TestScan_HandlerErrorStops(t *testing.T) {
	boom := errors.New("boom")
	input := strings.Join([]string{
		HeaderDelimiter,
		"labels",
		"row one",
		"row two",
		FooterDelimiter,
	}, "\n")

	h := &recordingHandler{bodyErr: boom}
	err := Scan(strings.NewReader(input), h)

	assert.ErrorIs(t, err, boom)
	assert.Len(t, h.body, 1)
}

func TestScan_FooterDelimiterInsideHeaderIgnored(t *testing.T) {
	// The footer delimiter line only terminates the body section; seen
	// before the header delimiter it is ordinary header text.
	input := strings.Join([]string{
		FooterDelimiter,
		HeaderDelimiter,
		"labels",
		FooterDelimiter,
		"footer",
	}, "\n")

	h := &recordingHandler{}
	err := Scan(strings.NewReader(input), h)

	require.NoError(t, err)
	assert.Equal(t, []string{FooterDelimiter}, h.header)
	assert.Empty(t, h.body)
	assert.Equal(t, []string{"footer"}, h.footer)
}
