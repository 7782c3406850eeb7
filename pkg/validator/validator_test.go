package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_ValidateRegister_Valid(t *testing.T) {
	req := require.New(t)
	errs := ValidateRegister("alice_01", "alice@example.com", "Sup3rSecret")
	req.False(errs.HasErrors())
}

func Test_ValidateRegister_Invalid_Fields(t *testing.T) {
	req := require.New(t)

	errs := ValidateRegister("", "not-an-email", "short")
	req.True(errs.HasErrors())
	req.Contains(errs, "username")
	req.Contains(errs, "email")
	req.Contains(errs, "password")

	errs = ValidateRegister("has spaces", "alice@example.com", "Sup3rSecret")
	req.Contains(errs, "username")

	errs = ValidateRegister("alice", "alice@example.com", "alllowercase1")
	req.Contains(errs, "password")
}

func Test_ValidateLogin(t *testing.T) {
	req := require.New(t)

	req.False(ValidateLogin("alice@example.com", "whatever").HasErrors())

	errs := ValidateLogin("", "")
	req.Contains(errs, "email")
	req.Contains(errs, "password")
}
