package ps

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// Transaction identifies one committed mutation of the store. Id is the Git
// commit hash, so the full mutation history is recoverable from the log.
type Transaction struct {
	Id      string
	When    time.Time
	Author  string // "Name <email>" format
	Message string
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s}", transaction.Id, transaction.When, transaction.Author)
}

// LatestTransaction returns the most recent committed mutation, or the zero
// Transaction if the store has never been written.
func (persistence *Persistence) LatestTransaction() Transaction {
	persistence.mu.RLock()
	defer persistence.mu.RUnlock()

	headRef, err := persistence.repo.Head()
	if err != nil || headRef == nil {
		return Transaction{}
	}

	commit, err := persistence.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Transaction{}
	}

	author := ""
	if commit.Author.Name != "" || commit.Author.Email != "" {
		author = fmt.Sprintf("%s <%s>", commit.Author.Name, commit.Author.Email)
	}

	return Transaction{
		Id:      headRef.Hash().String(),
		When:    commit.Committer.When,
		Author:  author,
		Message: commit.Message,
	}
}

// TransactionsSince lists mutations committed after asof, newest first.
func (persistence *Persistence) TransactionsSince(asof time.Time) []Transaction {
	persistence.mu.RLock()
	defer persistence.mu.RUnlock()

	var transactions []Transaction

	cIter, _ := persistence.repo.Log(&git.LogOptions{
		Since: &asof,
	})
	if cIter == nil {
		return nil
	}

	cIter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, Transaction{
			Id:      c.Hash.String(),
			When:    c.Committer.When,
			Message: c.Message,
		})
		return nil
	})

	return transactions
}

// TransactionsFrom lists mutations reachable from the given commit, newest
// first.
func (persistence *Persistence) TransactionsFrom(asof string) []Transaction {
	persistence.mu.RLock()
	defer persistence.mu.RUnlock()

	var transactions []Transaction

	cIter, _ := persistence.repo.Log(&git.LogOptions{
		From: plumbing.NewHash(asof),
	})
	if cIter == nil {
		return nil
	}

	cIter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, Transaction{
			Id:      c.Hash.String(),
			When:    c.Committer.When,
			Message: c.Message,
		})
		return nil
	})

	return transactions
}
