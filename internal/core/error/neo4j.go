package errx

import (
	"context"
	"errors"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// securityCodePrefix covers authentication and authorization failures.
const securityCodePrefix = "Neo.ClientError.Security."

// WrapNeo4j classifies a driver error as connectivity or statement failure.
// Security errors count as connectivity. Other server-side errors keep the
// server's message so the model can correct itself.
func WrapNeo4j(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || neo4j.IsConnectivityError(err) {
		return New(KindConnectivity, err, "graph store unreachable")
	}
	var serverErr *neo4j.Neo4jError
	if errors.As(err, &serverErr) {
		if strings.HasPrefix(serverErr.Code, securityCodePrefix) {
			return New(KindConnectivity, err, "graph store rejected credentials")
		}
		return New(KindStatement, err, "")
	}
	return New(KindStatement, err, "statement failed")
}
