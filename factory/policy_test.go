package factory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelola/course-engine/commission"
	"github.com/kelola/course-engine/factory"
)

func TestParsePolicy_ByClass(t *testing.T) {
	f := factory.NewPolicyFactory()

	policy, err := f.ParsePolicy(`{"type":"BY_CLASS","amount":100000}`)

	require.NoError(t, err)
	assert.Equal(t, commission.ByClass, policy.Type)
	assert.True(t, policy.Amount.Equal(decimal.NewFromInt(100000)))
}

func TestParsePolicy_ByStudent(t *testing.T) {
	f := factory.NewPolicyFactory()

	policy, err := f.ParsePolicy(`{"type":"BY_STUDENT","amount":15000}`)

	require.NoError(t, err)
	assert.Equal(t, commission.ByStudent, policy.Type)
	assert.True(t, policy.Amount.Equal(decimal.NewFromInt(15000)))
}

func TestParsePolicy_MalformedJSON(t *testing.T) {
	f := factory.NewPolicyFactory()

	_, err := f.ParsePolicy(`{"type":"BY_CLASS"`)

	assert.Error(t, err)
}

func TestParsePolicy_UnknownType(t *testing.T) {
	f := factory.NewPolicyFactory()

	_, err := f.ParsePolicy(`{"type":"BY_HOUR","amount":100000}`)

	require.Error(t, err)
	assert.ErrorIs(t, err, commission.ErrInvalidPolicy)
	assert.True(t, commission.IsClientError(err))
}

func TestParsePolicy_NegativeAmount(t *testing.T) {
	f := factory.NewPolicyFactory()

	_, err := f.ParsePolicy(`{"type":"BY_CLASS","amount":-5}`)

	require.Error(t, err)
	assert.ErrorIs(t, err, commission.ErrInvalidAmount)
}

func TestPresetsRoundTrip(t *testing.T) {
	f := factory.NewPolicyFactory()

	flat, err := f.ParsePolicy(factory.FlatRateJSON(100000))
	require.NoError(t, err)
	assert.Equal(t, commission.ByClass, flat.Type)

	perHead, err := f.ParsePolicy(factory.PerStudentJSON(15000))
	require.NoError(t, err)
	assert.Equal(t, commission.ByStudent, perHead.Type)
	assert.True(t, perHead.Amount.Equal(decimal.NewFromInt(15000)))
}
