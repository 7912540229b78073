package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"sslrelay.com/app/internal/modules/payments"
)

const maxMultipartMemory = 32 << 10

// readFields decodes a form, multipart or JSON body into flat key/values and
// returns the raw bytes alongside.
func readFields(c *gin.Context) (url.Values, []byte, error) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return url.Values{}, raw, nil
	}

	switch c.ContentType() {
	case gin.MIMEJSON:
		var m map[string]any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&m); err != nil {
			return nil, raw, err
		}
		out := url.Values{}
		for k, v := range m {
			switch vv := v.(type) {
			case nil:
			case string:
				out.Set(k, vv)
			case json.Number:
				out.Set(k, vv.String())
			case bool:
				out.Set(k, strconv.FormatBool(vv))
			default:
				b, _ := json.Marshal(vv)
				out.Set(k, string(b))
			}
		}
		return out, raw, nil

	case gin.MIMEMultipartPOSTForm:
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
			return nil, raw, err
		}
		return c.Request.PostForm, raw, nil

	default:
		v, err := url.ParseQuery(string(raw))
		return v, raw, err
	}
}

func callbackFrom(fields url.Values) payments.Callback {
	payload := make(map[string]string, len(fields))
	for k := range fields {
		payload[k] = fields.Get(k)
	}
	return payments.Callback{
		TranID:  fields.Get("tran_id"),
		ValID:   fields.Get("val_id"),
		Error:   fields.Get("error"),
		Payload: payload,
	}
}
