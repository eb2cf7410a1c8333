package config

import "testing"

func TestGetAPIKeyFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-key")

	key, err := GetAPIKey(nil)
	if err != nil {
		t.Fatalf("GetAPIKey() error = %v", err)
	}
	if key != "sk-ant-env-key" {
		t.Errorf("GetAPIKey() = %q, want sk-ant-env-key", key)
	}
}

func TestGetAPIKeyFromConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := &Config{}
	cfg.Anthropic.APIKey = "sk-ant-config-key"
	key, err := GetAPIKey(cfg)
	if err != nil {
		t.Fatalf("GetAPIKey() error = %v", err)
	}
	if key != "sk-ant-config-key" {
		t.Errorf("GetAPIKey() = %q, want sk-ant-config-key", key)
	}
}

func TestGetAPIKeyMissing(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	if _, err := GetAPIKey(&Config{}); err != ErrNoAPIKey {
		t.Errorf("GetAPIKey() error = %v, want ErrNoAPIKey", err)
	}
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid", "sk-ant-REDACTED", false},
		{"empty", "", true},
		{"wrong prefix", "sk-openai-whatever-key", true},
		{"too short", "sk-ant-x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey(""); got != "(not set)" {
		t.Errorf("MaskAPIKey(\"\") = %q, want (not set)", got)
	}
	if got := MaskAPIKey("short"); got != "***" {
		t.Errorf("MaskAPIKey(short) = %q, want ***", got)
	}
	got := MaskAPIKey("sk-ant-REDACTED")
	if got != "sk-ant-...mnop" {
		t.Errorf("MaskAPIKey() = %q, want sk-ant-...mnop", got)
	}
}
