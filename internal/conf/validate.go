// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateAISettings(&settings.AI); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateCameraSettings(&settings.Camera); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateHistorySettings(&settings.History); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateMQTTSettings(&settings.MQTT); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateAISettings validates the identification endpoint settings
func validateAISettings(settings *AISettings) error {
	var errs []string

	if settings.Endpoint == "" {
		errs = append(errs, "AI endpoint must not be empty")
	} else if u, err := url.Parse(settings.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Sprintf("AI endpoint must be an http(s) URL, got %q", settings.Endpoint))
	}

	if settings.Model == "" {
		errs = append(errs, "AI model must not be empty")
	}

	if settings.Timeout <= 0 {
		errs = append(errs, "AI timeout must be positive")
	}

	if settings.MaxTokens <= 0 {
		errs = append(errs, "AI maxtokens must be positive")
	}

	if settings.Temperature < 0 || settings.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("AI temperature must be between 0.0 and 2.0, got %.2f", settings.Temperature))
	}

	if len(errs) > 0 {
		return fmt.Errorf("AI settings errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// validateCameraSettings validates the capture settings
func validateCameraSettings(settings *CameraSettings) error {
	var errs []string

	if settings.Width <= 0 || settings.Height <= 0 {
		errs = append(errs, fmt.Sprintf("camera resolution must be positive, got %dx%d", settings.Width, settings.Height))
	}

	if settings.JpegQuality <= 0 || settings.JpegQuality > 1 {
		errs = append(errs, fmt.Sprintf("camera jpegquality must be in (0,1], got %.2f", settings.JpegQuality))
	}

	if settings.OptimQuality <= 0 || settings.OptimQuality > 1 {
		errs = append(errs, fmt.Sprintf("camera optimquality must be in (0,1], got %.2f", settings.OptimQuality))
	}

	if settings.MaxWidth <= 0 {
		errs = append(errs, "camera maxwidth must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("camera settings errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// validateHistorySettings validates the history store settings
func validateHistorySettings(settings *HistorySettings) error {
	var errs []string

	if settings.Path == "" {
		errs = append(errs, "history path must not be empty")
	}

	if settings.Capacity <= 0 {
		errs = append(errs, fmt.Sprintf("history capacity must be positive, got %d", settings.Capacity))
	}

	if len(errs) > 0 {
		return fmt.Errorf("history settings errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// validateWebServerSettings validates the web server settings
func validateWebServerSettings(settings *WebServerSettings) error {
	if !settings.Enabled {
		return nil
	}

	port, err := strconv.Atoi(settings.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("WebServer port must be a valid port number, got %q", settings.Port)
	}
	return nil
}

// validateMQTTSettings validates the MQTT publishing settings
func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}

	var errs []string

	if settings.Broker == "" {
		errs = append(errs, "MQTT broker must not be empty when MQTT is enabled")
	}
	if settings.Topic == "" {
		errs = append(errs, "MQTT topic must not be empty when MQTT is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("MQTT settings errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
