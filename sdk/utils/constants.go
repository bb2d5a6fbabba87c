// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

const (
	IniName            = ".bolster.ini"
	IniSource          = "ini_source"
	CurrentEnvironment = "current_environment"
	UpdatedEnvKey      = "updated_environment"

	CoreEndpoint    = "core_endpoint"
	CoreAccessToken = "access_token"
	CoreTimeout     = "core_timeout"
	CoreRetryMax    = "core_retry_max"

	AwsAccessKeyID     = "aws_access_key_id"
	AwsSecretAccessKey = "aws_secret_access_key"
	AwsSessionToken    = "aws_session_token"
	AwsRegion          = "aws_region"
	AwsEndpointURL     = "aws_endpoint_url"
	S3Bucket           = "s3_bucket"

	StorageProvider        = "storage_provider"
	StoragePrefix          = "prefix"
	ChunkSize              = "chunk_size"
	MaxConcurrentFiles     = "max_concurrent_files"
	MaxConcurrentChunks    = "max_concurrent_chunks"
	MaxObjectSize          = "max_object_size"
	AbortIncompleteUploads = "abort_incomplete_uploads"
)
