package textutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractBracketed(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		label  string
		want   string
		wantOk bool
	}{
		{"plain match", "账号:[user@example.com]", "账号", "user@example.com", true},
		{"embedded in longer line", "导出账号:[user@example.com]，时间段", "账号", "user@example.com", true},
		{"empty token", "账号:[]", "账号", "", true},
		{"first occurrence wins", "账号:[first] 账号:[second]", "账号", "first", true},
		{"space before colon breaks it", "账号 :[user]", "账号", "", false},
		{"space after colon breaks it", "账号: [user]", "账号", "", false},
		{"label absent", "用户:[user]", "账号", "", false},
		{"no brackets", "账号:user", "账号", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractBracketed(tc.line, tc.label)
			assert.Equal(t, tc.wantOk, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractSuffix(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		label  string
		want   string
		wantOk bool
	}{
		{"plain match", "用户:张三", "用户", "张三", true},
		{"prefix before label", "第1页 用户:张三", "用户", "张三", true},
		{"runs to end of line", "用户:张三 李四", "用户", "张三 李四", true},
		{"empty suffix", "用户:", "用户", "", true},
		{"label absent", "账号:张三", "用户", "", false},
		{"colon required", "用户张三", "用户", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractSuffix(tc.line, tc.label)
			assert.Equal(t, tc.wantOk, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
