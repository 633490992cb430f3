package main

// API metadata for swag. Run `go generate ./cmd/server` after changing
// handler annotations; the swagger UI serves whatever was last generated.

//go:generate swag init -g docs.go -d ./,../../internal/handler -o ../../docs

// @title Capital Budgeting Optimization API
// @version 1.0
// @description Orchestrates capital-budgeting optimization runs: assembles
// @description input CSVs, uploads them to object storage, submits solver
// @description jobs and ingests the result files.
// @BasePath /
