package statement

import (
	"fjacquet/alipay-ledger/internal/textutils"
)

const (
	accountLabel = "账号"
	userLabel    = "用户"
)

// OwnerUsername extracts the statement owner's unique username from a
// header preamble line of the form `账号:[<username>]`.
func OwnerUsername(line string) (string, bool) {
	return textutils.ExtractBracketed(line, accountLabel)
}

// OwnerFullName extracts the owner's display name from a footer line
// containing `用户:`; the name runs to the end of the line.
func OwnerFullName(line string) (string, bool) {
	return textutils.ExtractSuffix(line, userLabel)
}
