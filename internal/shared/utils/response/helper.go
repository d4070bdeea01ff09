package response

import "github.com/gin-gonic/gin"

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError writes an error envelope carrying a machine-readable code
func RespondError(c *gin.Context, code int, errorCode string, message string, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     "error",
		StatusCode: code,
		Message:    message,
		Errors:     errors,
		Code:       errorCode,
	})
}
