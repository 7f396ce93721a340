package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/biblioteka/backend/internal/app/models/dto"
	"github.com/biblioteka/backend/internal/db"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/biblioteka/backend/internal/pkg/dberrors"
	"github.com/biblioteka/backend/internal/pkg/helpers"
	"github.com/biblioteka/backend/internal/pkg/logger"
)

var sb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repositories holds all the repository instances
type Repositories struct {
	Users                *UserRepository
	Profiles             *ProfileRepository
	LibrarianAssignments *LibrarianAssignmentRepository
	Branches             *BranchRepository
	ReadingRooms         *ReadingRoomRepository
	RoomBookings         *RoomBookingRepository
	Authors              *AuthorRepository
	Categories           *CategoryRepository
	Books                *BookRepository
	BookAuthors          *BookAuthorRepository
	BookCategories       *BookCategoryRepository
	BookCopies           *BookCopyRepository
	BookBookings         *BookBookingRepository
	BookLoans            *BookLoanRepository
	Fines                *FineRepository
	BookReviews          *BookReviewRepository
	BookQueue            *BookQueueRepository
}

// NewRepositories initializes all repositories
func NewRepositories(database *db.PostgresDB) *Repositories {
	return &Repositories{
		Users:                NewUserRepository(database),
		Profiles:             NewProfileRepository(database),
		LibrarianAssignments: NewLibrarianAssignmentRepository(database),
		Branches:             NewBranchRepository(database),
		ReadingRooms:         NewReadingRoomRepository(database),
		RoomBookings:         NewRoomBookingRepository(database),
		Authors:              NewAuthorRepository(database),
		Categories:           NewCategoryRepository(database),
		Books:                NewBookRepository(database),
		BookAuthors:          NewBookAuthorRepository(database),
		BookCategories:       NewBookCategoryRepository(database),
		BookCopies:           NewBookCopyRepository(database),
		BookBookings:         NewBookBookingRepository(database),
		BookLoans:            NewBookLoanRepository(database),
		Fines:                NewFineRepository(database),
		BookReviews:          NewBookReviewRepository(database),
		BookQueue:            NewBookQueueRepository(database),
	}
}

// ListParams carries paging, sorting and free-text search for list queries
type ListParams struct {
	Page      int
	Size      int
	Search    string
	SortBy    string
	SortOrder string
}

// PageInfo is the pagination block returned with every list
type PageInfo = dto.PaginationInfo

type rowScanner interface {
	Scan(dest ...any) error
}

// searchAny matches term case-insensitively against any of columns
func searchAny(term string, columns ...string) squirrel.Sqlizer {
	pattern := "%" + strings.TrimSpace(term) + "%"
	or := make(squirrel.Or, 0, len(columns))
	for _, col := range columns {
		or = append(or, squirrel.ILike{col: pattern})
	}
	return or
}

// orderClause resolves a client sort key against the allowed columns
func orderClause(p ListParams, allowed map[string]string, fallback string) string {
	col, ok := allowed[p.SortBy]
	if !ok {
		return fallback
	}
	if strings.EqualFold(p.SortOrder, "asc") {
		return col + " ASC"
	}
	return col + " DESC"
}

func fetchOne[T any](ctx context.Context, q db.Querier, query squirrel.Sqlizer, entity string, scan func(rowScanner) (*T, error)) (*T, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", entity, err)
	}
	item, err := scan(q.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		return nil, dberrors.Translate(err, entity)
	}
	return item, nil
}

func fetchAll[T any](ctx context.Context, q db.Querier, query squirrel.Sqlizer, entity string, scan func(rowScanner) (*T, error)) ([]*T, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", entity, err)
	}
	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		logger.Error().Err(err).Str("entity", entity).Msg("Error executing list query")
		return nil, dberrors.Translate(err, entity)
	}
	defer rows.Close()

	items := []*T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, dberrors.Translate(err, entity)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, dberrors.Translate(err, entity)
	}
	return items, nil
}

// fetchPage counts the filtered set, then loads one page of it. base carries
// FROM, JOIN and WHERE; columns are added here so both queries share filters.
func fetchPage[T any](ctx context.Context, q db.Querier, base squirrel.SelectBuilder, columns []string, orderBy string, p ListParams, entity string, scan func(rowScanner) (*T, error)) ([]*T, PageInfo, error) {
	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, dto.PaginationInfo{}, fmt.Errorf("build %s count query: %w", entity, err)
	}

	var total int64
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Str("entity", entity).Msg("Error executing count query")
		return nil, dto.PaginationInfo{}, dberrors.Translate(err, entity)
	}

	pagination := helpers.NewPaginationInfo(total, p.Page, p.Size)
	if total == 0 {
		return []*T{}, pagination, nil
	}

	offset, limit := helpers.CalculateOffsetLimit(p.Page, p.Size)
	items, err := fetchAll(ctx, q, base.Columns(columns...).OrderBy(orderBy).Limit(limit).Offset(offset), entity, scan)
	if err != nil {
		return nil, dto.PaginationInfo{}, err
	}
	return items, pagination, nil
}

// insertReturning runs an INSERT ... RETURNING and scans into dest
func insertReturning(ctx context.Context, q db.Querier, query squirrel.InsertBuilder, entity string, dest ...any) error {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build %s insert: %w", entity, err)
	}
	if err := q.QueryRow(ctx, sqlStr, args...).Scan(dest...); err != nil {
		return dberrors.Translate(err, entity)
	}
	return nil
}

// execAffectingOne runs an UPDATE or DELETE that must touch exactly one row
func execAffectingOne(ctx context.Context, q db.Querier, query squirrel.Sqlizer, entity string) error {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build %s statement: %w", entity, err)
	}
	tag, err := q.Exec(ctx, sqlStr, args...)
	if err != nil {
		return dberrors.Translate(err, entity)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError(entity + " not found")
	}
	return nil
}

// deleteByID removes a row from table by primary key
func deleteByID(ctx context.Context, q db.Querier, table string, id int64, entity string) error {
	return execAffectingOne(ctx, q, sb.Delete(table).Where(squirrel.Eq{"id": id}), entity)
}

// execCount runs a bulk UPDATE and returns the affected row count
func execCount(ctx context.Context, q db.Querier, query squirrel.Sqlizer, entity string) (int64, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := q.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, dberrors.Translate(err, entity)
	}
	return tag.RowsAffected(), nil
}
