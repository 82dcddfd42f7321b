package handlers

import (
	"net/http"

	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ExpenseHandler serves the expenses nested under a trip.
type ExpenseHandler struct {
	expenses ExpenseServiceInterface
	logger   *zap.Logger
}

func NewExpenseHandler(expenses ExpenseServiceInterface, logger *zap.Logger) *ExpenseHandler {
	return &ExpenseHandler{
		expenses: expenses,
		logger:   logger.Named("ExpenseHandler"),
	}
}

// ListExpensesHandler godoc
// @Summary List a trip's expenses
// @Tags expenses
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {array} types.Expense
// @Failure 404 {object} middleware.ErrorResponse
// @Router /trips/{id}/expenses [get]
// @Security BearerAuth
func (h *ExpenseHandler) ListExpensesHandler(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	expenses, err := h.expenses.ListExpenses(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, expenses)
}

// AddExpenseHandler godoc
// @Summary Add an expense
// @Description Records an expense and runs the budget threshold check for the trip
// @Tags expenses
// @Accept json
// @Produce json
// @Param id path string true "Trip ID"
// @Param request body docs.ExpenseRequest true "Expense document"
// @Success 201 {object} types.Expense
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /trips/{id}/expenses [post]
// @Security BearerAuth
func (h *ExpenseHandler) AddExpenseHandler(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	doc, ok := bindDocument(c)
	if !ok {
		return
	}

	expense, err := h.expenses.AddExpense(c.Request.Context(), userID, c.Param("id"), doc)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, expense)
}

// DeleteExpenseHandler godoc
// @Summary Delete an expense
// @Tags expenses
// @Param id path string true "Trip ID"
// @Param expenseId path string true "Expense ID"
// @Success 204 "No Content"
// @Failure 404 {object} middleware.ErrorResponse
// @Router /trips/{id}/expenses/{expenseId} [delete]
// @Security BearerAuth
func (h *ExpenseHandler) DeleteExpenseHandler(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	if err := h.expenses.DeleteExpense(c.Request.Context(), userID, c.Param("id"), c.Param("expenseId")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CategoriesHandler godoc
// @Summary Starter expense categories
// @Tags expenses
// @Produce json
// @Success 200 {array} string
// @Router /categories [get]
func (h *ExpenseHandler) CategoriesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, types.StarterCategories)
}
