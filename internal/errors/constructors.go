package errors

// Convenience functions for common error patterns

// Input errors

func ValidationFailed(field, reason string) *PlantKeeperError {
	return New(CategoryValidation, SeverityWarning, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

func PlantNotFound(plantID string) *PlantKeeperError {
	return New(CategoryNotFound, SeverityWarning, "plant not found").
		WithContext("plant_id", plantID)
}

func UserNotFound(userID string) *PlantKeeperError {
	return New(CategoryNotFound, SeverityWarning, "user not found").
		WithContext("user_id", userID)
}

// Schedule errors

func NotYetDue(plantID string) *PlantKeeperError {
	return New(CategoryNotYetDue, SeverityInfo, "plant is not due for watering yet").
		WithContext("plant_id", plantID)
}

func InvalidSchedule(frequencyDays int) *PlantKeeperError {
	return New(CategorySchedule, SeverityWarning, "watering frequency must be at least one day").
		WithContext("frequency_days", frequencyDays)
}

// Infrastructure errors

// ConcurrentUpdate reports an edit that lost its optimistic-concurrency
// guard: the plant changed between the caller's read and the write.
func ConcurrentUpdate(plantID string) *PlantKeeperError {
	e := New(CategoryStorage, SeverityWarning, "plant was modified concurrently, retry the edit")
	e.Retryable = true
	return e.WithContext("plant_id", plantID)
}

func StorageError(operation string, cause error) *PlantKeeperError {
	return WrapRetryable(cause, CategoryStorage, SeverityError, "storage operation failed").
		WithContext("operation", operation)
}

func NotificationError(plantID string, cause error) *PlantKeeperError {
	return Wrap(cause, CategoryNotification, SeverityWarning, "reminder delivery failed").
		WithContext("plant_id", plantID)
}

func ConfigError(message string) *PlantKeeperError {
	return New(CategoryConfig, SeverityFatal, message)
}

func InternalError(message string, cause error) *PlantKeeperError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
