package cache

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

type BlobCache struct {
	client    *azblob.Client
	container string
}

var _ ListCache = (*BlobCache)(nil)

func NewBlobCache(accountName, accountKey, container string) (*BlobCache, error) {
	if accountName == "" || accountKey == "" {
		return nil, fmt.Errorf("azure storage account name and key are required")
	}
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	// The service URL for blob endpoints is usually in the form: http(s)://<account>.blob.core.windows.net/
	client, err := azblob.NewClientWithSharedKeyCredential(fmt.Sprintf("https://%s.blob.core.windows.net/", accountName), cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &BlobCache{
		client:    client,
		container: container,
	}, nil
}

func (bc *BlobCache) List(ctx context.Context, prefix string, _ string) ([]string, error) {
	var keys []string
	pager := bc.client.NewListBlobsFlatPager(bc.container, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get next page of blobs: %w", err)
		}
		for _, item := range page.Segment.BlobItems {
			keys = append(keys, strings.TrimPrefix(*item.Name, prefix))
		}
	}

	return keys, nil
}

func (bc *BlobCache) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	stream, err := bc.client.DownloadStream(ctx, bc.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download blob %s: %w", key, err)
	}
	return stream.Body, nil
}

func (bc *BlobCache) Put(ctx context.Context, key, value string, opts PutOptions) error {
	uploadOpts := &azblob.UploadStreamOptions{}
	if opts.Condition == PutIfNoneMatch {
		etagAny := azcore.ETagAny
		uploadOpts.AccessConditions = &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: &etagAny},
		}
	}
	_, err := bc.client.UploadStream(ctx, bc.container, key, strings.NewReader(value), uploadOpts)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to upload blob %s: %w", key, err)
	}
	return nil
}

func (bc *BlobCache) Delete(ctx context.Context, key string) error {
	_, err := bc.client.DeleteBlob(ctx, bc.container, key, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}
