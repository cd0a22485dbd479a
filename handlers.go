package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"scavlog/models"
	"scavlog/pkg/ocr"
	"scavlog/pkg/scavcase"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm/clause"
)

func setupRoutes(r *gin.Engine) {
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.POST("/cases", createScavCaseHandler)
	authGroup.GET("/cases", listScavCasesHandler)
	authGroup.GET("/cases/:id", getScavCaseHandler)
	authGroup.PUT("/cases/:id/items", updateScavCaseItemsHandler)
	authGroup.DELETE("/cases/:id", deleteScavCaseHandler)
	authGroup.GET("/stats/type-distribution", typeDistributionHandler)
	authGroup.GET("/items/search", searchItemsHandler)
	authGroup.GET("/items/:id/price", itemPriceHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func meHandler(c *gin.Context) {
	usernameVal, _ := c.Get("username")
	if usernameVal == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "context missing username"})
		return
	}
	username := usernameVal.(string)
	c.JSON(http.StatusOK, gin.H{"username": username})
}

// getUserFromContext fetches the currently authenticated user using the username set by jwtAuthMiddleware
func getUserFromContext(c *gin.Context) (*models.User, bool) {
	unameVal, _ := c.Get("username")
	if unameVal == nil {
		return nil, false
	}
	uname := unameVal.(string)
	var user models.User
	if err := db.Where("username = ?", uname).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

func isAdmin(c *gin.Context) bool {
	role, _ := c.Get("role")
	return role == "administrator"
}

// createScavCaseHandler accepts either a screenshot (multipart "image", run
// through the OCR pipeline) or a pre-structured "items_data" JSON array from
// the manual search UI. Both converge on the same transaction builder.
func createScavCaseHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	caseType := c.PostForm("scav_case_type")
	if strings.TrimSpace(caseType) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scav_case_type is required"})
		return
	}

	var entries []scavcase.Entry
	if file, err := c.FormFile("image"); err == nil {
		if file.Size > 10*1024*1024 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 10MB)"})
			return
		}
		fullPath := filepath.Join(uploadBaseDir(), filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, fullPath); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
			return
		}
		items, err := extractFromScreenshot(fullPath)
		if err != nil {
			respondCaseError(c, err)
			return
		}
		entries = items
	} else if itemsData := c.PostForm("items_data"); itemsData != "" {
		if err := json.Unmarshal([]byte(itemsData), &entries); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid items data format"})
			return
		}
	} else {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either image or items_data must be provided"})
		return
	}

	sc, err := svc.Create(c.Request.Context(), caseType, entries, user.ID)
	if err != nil {
		respondCaseError(c, err)
		return
	}
	log.Printf("CASE created id=%d type=%s items=%d return=%d user=%s", sc.ID, sc.Type, sc.NumberOfItems, sc.Return, user.Username)
	c.JSON(http.StatusOK, gin.H{
		"message":      "scav case and items successfully added",
		"scav_case_id": sc.ID,
		"items":        entries,
	})
}

// extractFromScreenshot runs the OCR pipeline against the current catalog snapshot.
func extractFromScreenshot(path string) ([]scavcase.Entry, error) {
	snapshot, err := cat.Snapshot()
	if err != nil {
		return nil, err
	}
	items, err := ocr.ProcessScreenshot(rec, snapshot, path)
	if err != nil {
		return nil, err
	}
	entries := make([]scavcase.Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, scavcase.Entry{TarkovID: it.TarkovID, Name: it.Name, Quantity: it.Quantity})
	}
	return entries, nil
}

// respondCaseError maps the error taxonomy onto HTTP responses. User-caused
// conditions get specific messages; anything unexpected is logged and hidden
// behind a generic message.
func respondCaseError(c *gin.Context, err error) {
	var verr *scavcase.ValidationError
	var nre *ocr.NotRecognizedError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, ocr.ErrNotScavCase):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &nre):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": nre.Error()})
	case errors.Is(err, scavcase.ErrCostUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not resolve the case cost from the market, please retry shortly"})
	default:
		log.Printf("ERROR scav case request: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "an unexpected error occurred"})
	}
}

var caseSortColumns = map[string]string{
	"id":         "id",
	"type":       "type",
	"cost":       "cost",
	"return":     "return_value",
	"created_at": "created_at",
}

// listScavCasesHandler lists cases with pagination and sorting (admin sees all)
func listScavCasesHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	page := 1
	if v := c.Query("page"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			page = n
		}
	}
	perPage := 10
	if v := c.Query("per_page"); v != "" {
		if n, err := parsePositiveInt(v); err == nil && n <= 100 {
			perPage = n
		}
	}
	sortCol, ok2 := caseSortColumns[c.DefaultQuery("sort_by", "id")]
	if !ok2 {
		sortCol = "id"
	}
	order := sortCol + " asc"
	if c.DefaultQuery("sort_order", "asc") == "desc" {
		order = sortCol + " desc"
	}

	q := db.Model(&models.ScavCase{})
	if !isAdmin(c) {
		q = q.Where("user_id = ?", user.ID)
	}
	var total int64
	q.Count(&total)
	var cases []models.ScavCase
	if err := q.Order(order).Offset((page - 1) * perPage).Limit(perPage).Find(&cases).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cases": cases, "page": page, "per_page": perPage, "total": total})
}

func getScavCaseHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var sc models.ScavCase
	if err := db.Preload("Items").First(&sc, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if !isAdmin(c) && sc.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"case": sc, "profit": sc.Profit()})
}

func updateScavCaseItemsHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var sc models.ScavCase
	if err := db.First(&sc, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if !isAdmin(c) && sc.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	var req struct {
		Items []scavcase.ItemEdit `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := svc.UpdateItems(c.Request.Context(), sc.ID, req.Items)
	if err != nil {
		respondCaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"case": updated, "profit": updated.Profit()})
}

func deleteScavCaseHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var sc models.ScavCase
	if err := db.First(&sc, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if !isAdmin(c) && sc.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	if err := db.Select(clause.Associations).Delete(&sc).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "scav case deleted"})
}

// typeDistributionHandler returns how many cases exist per case type (feeds the charts).
func typeDistributionHandler(c *gin.Context) {
	type Result struct {
		Type  string `json:"type"`
		Count int64  `json:"count"`
	}
	var results []Result
	rows, err := db.Model(&models.ScavCase{}).Select("type, count(*) as count").Group("type").Rows()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	defer rows.Close()
	for rows.Next() {
		var r Result
		rows.Scan(&r.Type, &r.Count)
		results = append(results, r)
	}
	c.JSON(http.StatusOK, results)
}

// searchItemsHandler is the catalog lookup behind the manual entry UI.
func searchItemsHandler(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusOK, []models.TarkovItem{})
		return
	}
	var items []models.TarkovItem
	if err := db.Where("name ILIKE ?", "%"+query+"%").Limit(10).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// itemPriceHandler returns the live resolved price for one catalog item.
func itemPriceHandler(c *gin.Context) {
	price, err := mkt.ItemPrice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pricing service is unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"price": price})
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := RegisterUser(req.Username, req.Password); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	tokenString, err := signAccessToken(user, 24*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	refreshToken, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

// signAccessToken issues an HMAC access token embedding username and role name.
func signAccessToken(user models.User, ttl time.Duration) (string, error) {
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(jwtSecret)
}

// createAndStoreRefreshToken generates a random refresh token, stores its hash with expiry and returns the raw token string
func createAndStoreRefreshToken(userID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	rt := models.RefreshToken{UserID: userID, TokenHash: th, ExpiresAt: time.Now().Add(30 * 24 * time.Hour)}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

// helper to find refresh token record by raw token string
func findRefreshTokenByRaw(token string) (*models.RefreshToken, error) {
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	var rt models.RefreshToken
	if err := db.Where("token_hash = ?", th).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	var user models.User
	if err := db.First(&user, rt.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	tokenString, err := signAccessToken(user, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// rotate refresh token: revoke existing and create new one
	db.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true)
	newRT, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

// revokeRefreshHandler revokes a given refresh token (useful on logout)
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	rt.Revoked = true
	if err := db.Save(rt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("not a positive integer")
	}
	return n, nil
}
