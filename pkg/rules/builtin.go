package rules

import (
	"regexp"
	"strings"

	"github.com/adrata/backend/pkg/constants"
	"github.com/adrata/backend/pkg/utils"
)

// Built-in rule names
const (
	RuleDisposableEmailDomain = "disposable_email_domain"
	RuleTestEmailLocalPart    = "test_email_local_part"
	RulePlaceholderName       = "placeholder_name"
	RulePlaceholderPhone      = "placeholder_phone"
)

var disposableDomains = map[string]bool{
	"example.com": true, "example.org": true, "test.com": true, "mailinator.com": true,
	"fake.com": true, "tempmail.com": true, "yopmail.com": true, "guerrillamail.com": true,
}

var testLocalPrefixes = []string{"test", "fake", "asdf", "noreply", "dummy"}

var placeholderNames = map[string]bool{
	"test":       true,
	"test user":  true,
	"john doe":   true,
	"jane doe":   true,
	"asdf":       true,
	"n/a":        true,
	"unknown":    true,
	"first last": true,
}

var (
	nonDigit      = regexp.MustCompile(`\D`)
	reservedPhone = regexp.MustCompile(`55501\d{2}$`)
)

var (
	emailColumns = []string{constants.FieldEmail, constants.FieldWorkEmail, constants.FieldPersonalEmail}
	phoneColumns = []string{constants.FieldPhone, constants.FieldMobilePhone, constants.FieldWorkPhone}
)

type builtinRule struct {
	name  string
	check func(record map[string]interface{}) bool
}

var builtins = []builtinRule{
	{RuleDisposableEmailDomain, anyEmail(func(email string) bool {
		return disposableDomains[utils.EmailDomain(email)]
	})},
	{RuleTestEmailLocalPart, anyEmail(func(email string) bool {
		at := strings.Index(email, "@")
		if at <= 0 {
			return false
		}
		local := email[:at]
		for _, prefix := range testLocalPrefixes {
			if strings.HasPrefix(local, prefix) {
				return true
			}
		}
		return false
	})},
	{RulePlaceholderName, func(record map[string]interface{}) bool {
		return IsPlaceholderName(recordName(record))
	}},
	{RulePlaceholderPhone, func(record map[string]interface{}) bool {
		for _, col := range phoneColumns {
			if IsPlaceholderPhone(utils.ToString(record[col])) {
				return true
			}
		}
		return false
	}},
}

func anyEmail(check func(string) bool) func(map[string]interface{}) bool {
	return func(record map[string]interface{}) bool {
		for _, col := range emailColumns {
			if email := utils.NormalizeEmail(utils.ToString(record[col])); email != "" && check(email) {
				return true
			}
		}
		return false
	}
}

// recordName is fullName for people and name for companies.
func recordName(record map[string]interface{}) string {
	return utils.FirstNonEmpty(
		utils.ToString(record[constants.FieldFullName]),
		utils.JoinName(utils.ToString(record[constants.FieldFirstName]), utils.ToString(record[constants.FieldLastName])),
		utils.ToString(record[constants.FieldName]),
	)
}

// IsPlaceholderName matches well-known dummy names and a single character
// repeated three or more times.
func IsPlaceholderName(name string) bool {
	n := utils.NormalizeName(name)
	if n == "" {
		return false
	}
	if placeholderNames[n] {
		return true
	}
	compact := strings.ReplaceAll(n, " ", "")
	runes := []rune(compact)
	if len(runes) < 3 {
		return false
	}
	for _, r := range runes[1:] {
		if r != runes[0] {
			return false
		}
	}
	return true
}

// IsPlaceholderPhone matches repeated digits, ascending runs and the reserved
// 555-01xx range.
func IsPlaceholderPhone(phone string) bool {
	digits := nonDigit.ReplaceAllString(phone, "")
	if digits == "" {
		return false
	}
	if reservedPhone.MatchString(digits) {
		return true
	}
	if len(digits) < 7 {
		return false
	}

	repeated, ascending := true, true
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			repeated = false
		}
		if (digits[i-1]-'0'+1)%10 != digits[i]-'0' {
			ascending = false
		}
	}
	return repeated || ascending
}
