package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		set      bool
		isNumber bool
		value    float64
	}{
		{name: "empty is unset", raw: "", set: false},
		{name: "integer", raw: "50", set: true, isNumber: true, value: 50},
		{name: "decimal", raw: "12.5", set: true, isNumber: true, value: 12.5},
		{name: "negative is kept", raw: "-1", set: true, isNumber: true, value: -1},
		{name: "surrounding spaces", raw: " 7 ", set: true, isNumber: true, value: 7},
		{name: "blank counts as zero", raw: "   ", set: true, isNumber: true, value: 0},
		{name: "exponent", raw: "1e3", set: true, isNumber: true, value: 1000},
		{name: "letters", raw: "abc", set: true, isNumber: false},
		{name: "nan spelling", raw: "NaN", set: true, isNumber: false},
		{name: "infinity spelling", raw: "Infinity", set: true, isNumber: false},
		{name: "overflow", raw: "1e400", set: true, isNumber: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ParseAmount(tt.raw)
			assert.Equal(t, tt.set, a.Set)
			assert.Equal(t, tt.isNumber, a.IsNumber())
			assert.Equal(t, tt.raw, a.Raw)
			if tt.isNumber {
				assert.Equal(t, tt.value, a.Value)
			}
		})
	}
}

func TestParseAmountNonNumericIsNaN(t *testing.T) {
	assert.True(t, math.IsNaN(ParseAmount("12abc").Value))
}

func TestContextVisibleServices(t *testing.T) {
	services := []Service{{ServiceID: "A", NomService: "Svc A"}}

	var missing *Context
	assert.Nil(t, missing.VisibleServices())
	assert.Nil(t, (&Context{Authorized: false, Services: services}).VisibleServices())
	assert.Equal(t, services, (&Context{Authorized: true, Services: services}).VisibleServices())
}

func TestContextClone(t *testing.T) {
	original := &Context{Authorized: true, Services: []Service{{ServiceID: "A", NomService: "Svc A"}}}

	clone := original.Clone()
	clone.Services[0].NomService = "changed"

	assert.Equal(t, "Svc A", original.Services[0].NomService)
	assert.Nil(t, (*Context)(nil).Clone())
}

func TestStateAccessors(t *testing.T) {
	cx := &Context{Authorized: true}

	assert.Equal(t, "", TokenOf(Unauthenticated{}))
	assert.Equal(t, "t", TokenOf(ContextLoading{Token: "t"}))
	assert.Equal(t, "t", TokenOf(Unauthorized{Token: "t", Context: cx}))
	assert.Equal(t, "t", TokenOf(Authorized{Token: "t", Context: cx}))

	assert.Nil(t, ContextOf(ContextLoading{Token: "t"}))
	assert.Same(t, cx, ContextOf(Authorized{Token: "t", Context: cx}))
}

func TestResetFields(t *testing.T) {
	fields := ResetFields([]Service{{ServiceID: "A"}, {ServiceID: "B"}})

	require.Len(t, fields, 2)
	for _, f := range fields {
		assert.Equal(t, ZeroAmount(), f.Amount)
		assert.False(t, f.Touched())
	}
}

func TestDisplayMessage(t *testing.T) {
	assert.Equal(t, "", DisplayMessage(nil))
	assert.Equal(t, GenericBackendError, DisplayMessage(&BackendRejection{}))
	assert.Equal(t, "quota", DisplayMessage(&BackendRejection{Message: "quota"}))
	assert.Equal(t, "Montant invalide pour: Eau", DisplayMessage(NewInvalidAmountError(Service{NomService: "Eau"})))
	assert.Equal(t, ErrNetwork.Error(), DisplayMessage(ErrNetwork))
}

func TestServiceIDKeepsWireForm(t *testing.T) {
	var services []Service
	require.NoError(t, json.Unmarshal([]byte(`[{"serviceId":7,"nomService":"Gaz"},{"serviceId":"7","nomService":"Eau"}]`), &services))

	assert.Equal(t, "7", services[0].ServiceID)
	assert.Equal(t, "7", services[1].ServiceID)

	out, err := json.Marshal(services)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"serviceId":7,"nomService":"Gaz"},{"serviceId":"7","nomService":"Eau"}]`, string(out))

	item, err := json.Marshal(SubmitItem{ServiceID: "7", RawID: services[0].RawID, Montant: 3, FilledAt: 9})
	require.NoError(t, err)
	assert.JSONEq(t, `{"serviceId":7,"montant":3,"filledAt":9}`, string(item))
}

func TestServiceIDRejectsOtherTypes(t *testing.T) {
	for _, body := range []string{`{"serviceId":null}`, `{"serviceId":true}`, `{"serviceId":[1]}`, `{"nomService":"x"}`} {
		var s Service
		assert.Error(t, json.Unmarshal([]byte(body), &s), body)
	}
}
