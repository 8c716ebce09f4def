package store

import "context"

// CategoryRepo is the repository for the categories store. Edits here do not
// touch the category copies already embedded in todos and reports.
type CategoryRepo struct {
	store objectStore[Category]
}

func NewCategoryRepo(g *Gateway) *CategoryRepo {
	return &CategoryRepo{
		store: objectStore[Category]{gw: g, name: StoreCategories, orderBy: "id"},
	}
}

func (r *CategoryRepo) Create(ctx context.Context, c Category) (Outcome, error) {
	const op = "create category"
	if err := c.Validate(); err != nil {
		return "", newError(KindValidation, op, err)
	}
	if err := r.store.add(ctx, op, c.ID, c); err != nil {
		return "", err
	}
	return OutcomeCategoryAdded, nil
}

func (r *CategoryRepo) List(ctx context.Context) ([]Category, error) {
	return r.store.getAll(ctx, "list categories")
}

func (r *CategoryRepo) Get(ctx context.Context, id string) (Category, error) {
	return r.store.get(ctx, "get category", id)
}

func (r *CategoryRepo) Update(ctx context.Context, c Category) (Outcome, error) {
	const op = "update category"
	if err := c.Validate(); err != nil {
		return "", newError(KindValidation, op, err)
	}
	if err := r.store.put(ctx, op, c.ID, c); err != nil {
		return "", err
	}
	return OutcomeCategoryUpdated, nil
}

func (r *CategoryRepo) Delete(ctx context.Context, id string) (Outcome, error) {
	if err := r.store.remove(ctx, "delete category", id); err != nil {
		return "", err
	}
	return OutcomeCategoryDeleted, nil
}

func (r *CategoryRepo) DeleteAll(ctx context.Context) (Outcome, error) {
	if err := r.store.clear(ctx, "delete all categories"); err != nil {
		return "", err
	}
	return OutcomeCategoriesCleared, nil
}
