package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

const (
	errDupEntry      = 1062
	errRowReferenced = 1451
)

// mysqlCode returns the server error number, or 0 for other errors.
func mysqlCode(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}
