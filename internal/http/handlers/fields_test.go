package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(body, contentType string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", contentType)
	return c
}

func TestReadFieldsJSON(t *testing.T) {
	c := testContext(`{"tran_id":"T1","total_amount":100.5,"emi_option":0,"flag":true,"cart":[{"sku":"A"}],"skip":null}`, "application/json; charset=utf-8")

	v, raw, err := readFields(c)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Equal(t, "T1", v.Get("tran_id"))
	assert.Equal(t, "100.5", v.Get("total_amount"))
	assert.Equal(t, "0", v.Get("emi_option"))
	assert.Equal(t, "true", v.Get("flag"))
	assert.JSONEq(t, `[{"sku":"A"}]`, v.Get("cart"))
	_, ok := v["skip"]
	assert.False(t, ok)
}

func TestReadFieldsForm(t *testing.T) {
	c := testContext("tran_id=T1&val_id=V+1", "application/x-www-form-urlencoded")

	v, _, err := readFields(c)
	require.NoError(t, err)
	assert.Equal(t, "T1", v.Get("tran_id"))
	assert.Equal(t, "V 1", v.Get("val_id"))
}

func TestReadFieldsMultipart(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("tran_id", "T1"))
	require.NoError(t, mw.WriteField("val_id", "V1"))
	require.NoError(t, mw.Close())

	c := testContext(buf.String(), mw.FormDataContentType())

	v, _, err := readFields(c)
	require.NoError(t, err)
	assert.Equal(t, "T1", v.Get("tran_id"))
	assert.Equal(t, "V1", v.Get("val_id"))
}

func TestReadFieldsEmptyAndBroken(t *testing.T) {
	v, _, err := readFields(testContext("", "application/json"))
	require.NoError(t, err)
	assert.Empty(t, v)

	_, _, err = readFields(testContext("{", "application/json"))
	assert.Error(t, err)
}

func TestCallbackFrom(t *testing.T) {
	c := testContext("tran_id=T1&val_id=V1&error=Declined&amount=10", "application/x-www-form-urlencoded")
	v, _, err := readFields(c)
	require.NoError(t, err)

	cb := callbackFrom(v)
	assert.Equal(t, "T1", cb.TranID)
	assert.Equal(t, "V1", cb.ValID)
	assert.Equal(t, "Declined", cb.Error)
	assert.Equal(t, "10", cb.Payload["amount"])
}
