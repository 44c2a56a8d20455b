package routes

import (
	"os"
	"strings"

	"rental-sync-server/utils"

	"github.com/kataras/iris/v12"
	"golang.org/x/crypto/bcrypt"
)

type AdminLoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AdminLogin checks the env-configured admin credentials and issues the
// access token for the admin API.
func AdminLogin(ctx iris.Context) {
	var input AdminLoginInput

	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	adminEmail := os.Getenv("ADMIN_EMAIL")
	passwordHash := os.Getenv("ADMIN_PASSWORD_HASH")
	errorMsg := "Invalid email or password."

	if adminEmail == "" || passwordHash == "" {
		utils.CreateError(iris.StatusServiceUnavailable, "Configuration Error", "Admin credentials are not configured.", ctx)
		return
	}

	if !strings.EqualFold(input.Email, adminEmail) {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	passwordErr := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(input.Password))
	if passwordErr != nil {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	token, err := utils.CreateAccessToken(1, "admin")
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"accessToken": token})
}
