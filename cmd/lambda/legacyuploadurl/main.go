package main

import (
	"net/http"

	"github.com/storacha/uploadurl/cmd/lambda"
	"github.com/storacha/uploadurl/pkg/aws"
	"github.com/storacha/uploadurl/pkg/service/uploads"
)

func main() {
	lambda.StartHTTPHandler(makeHandler)
}

func makeHandler(cfg aws.Config) (http.Handler, error) {
	service, err := aws.ConstructLegacy(cfg)
	if err != nil {
		return nil, err
	}
	return uploads.NewFixedUploadURLHandler(service), nil
}
