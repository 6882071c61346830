package model

import (
	"errors"
	"testing"
)

func TestDecodeEnvelope(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		env, err := DecodeEnvelope([]byte(`{"sensname":"WattStopper.HS1--4126F--Dimmer Level-2","sensvalue":10,"logger":{"msg":"Success!","level":"INFO"}}` + "\n"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if env.SensName != "WattStopper.HS1--4126F--Dimmer Level-2" {
			t.Errorf("unexpected sensname %q", env.SensName)
		}
		if env.SensValue != 10 {
			t.Errorf("expected sensvalue 10, got %v", env.SensValue)
		}
		if env.Logger.Msg != "Success!" || env.Logger.Level != "INFO" {
			t.Errorf("unexpected logger %+v", env.Logger)
		}
		if env.IsError() {
			t.Error("INFO envelope reported as error")
		}
	})

	t.Run("error level is case-insensitive", func(t *testing.T) {
		for _, level := range []string{"error", "ERROR", "Error"} {
			env, err := DecodeEnvelope([]byte(`{"sensname":"a","sensvalue":1,"logger":{"msg":"boom","level":"` + level + `"}}`))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !env.IsError() {
				t.Errorf("level %q not reported as error", level)
			}
		}
	})

	missing := map[string]string{
		"sensname":     `{"sensvalue":1,"logger":{"msg":"m","level":"INFO"}}`,
		"sensvalue":    `{"sensname":"a","logger":{"msg":"m","level":"INFO"}}`,
		"logger":       `{"sensname":"a","sensvalue":1}`,
		"logger.msg":   `{"sensname":"a","sensvalue":1,"logger":{"level":"INFO"}}`,
		"logger.level": `{"sensname":"a","sensvalue":1,"logger":{"msg":"m"}}`,
	}
	for field, body := range missing {
		t.Run("missing "+field, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(body))
			if !errors.Is(err, ErrMissingField) {
				t.Fatalf("expected ErrMissingField, got %v", err)
			}
		})
	}

	invalid := map[string]string{
		"string value":  `{"sensname":"a","sensvalue":"1","logger":{"msg":"m","level":"INFO"}}`,
		"numeric name":  `{"sensname":5,"sensvalue":1,"logger":{"msg":"m","level":"INFO"}}`,
		"not an object": `[1,2,3]`,
		"empty":         ``,
		"garbage":       `Traceback (most recent call last):`,
	}
	for name, body := range invalid {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeEnvelope([]byte(body)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
