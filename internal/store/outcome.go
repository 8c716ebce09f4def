package store

// Outcome identifies a successful repository operation. The values double as
// message IDs in the message catalog.
type Outcome string

const (
	OutcomeTodoAdded       Outcome = "todoAdded"
	OutcomeTodoUpdated     Outcome = "todoUpdated"
	OutcomeTodoDeleted     Outcome = "todoDeleted"
	OutcomeTodosCleared    Outcome = "todosCleared"
	OutcomeTodoCompleted   Outcome = "todoCompleted"
	OutcomeTodoUncompleted Outcome = "todoUncompleted"

	OutcomeReportAdded    Outcome = "reportAdded"
	OutcomeReportUpdated  Outcome = "reportUpdated"
	OutcomeReportDeleted  Outcome = "reportDeleted"
	OutcomeReportsCleared Outcome = "reportsCleared"

	OutcomeCategoryAdded     Outcome = "categoryAdded"
	OutcomeCategoryUpdated   Outcome = "categoryUpdated"
	OutcomeCategoryDeleted   Outcome = "categoryDeleted"
	OutcomeCategoriesCleared Outcome = "categoriesCleared"
)

// Outcomes lists every Outcome; the message catalog test walks it.
var Outcomes = []Outcome{
	OutcomeTodoAdded, OutcomeTodoUpdated, OutcomeTodoDeleted, OutcomeTodosCleared,
	OutcomeTodoCompleted, OutcomeTodoUncompleted,
	OutcomeReportAdded, OutcomeReportUpdated, OutcomeReportDeleted, OutcomeReportsCleared,
	OutcomeCategoryAdded, OutcomeCategoryUpdated, OutcomeCategoryDeleted, OutcomeCategoriesCleared,
}
