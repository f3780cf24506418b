// Command mlops-agent runs the Bedrock agent action group Lambda that
// automates SageMaker MLOps workflows.
package main

import "github.com/aws-samples/sample-mlops-agent-for-bedrock/mlops"

func main() {
	mlops.NewApp[mlops.BaseEnvironment](mlops.Register).Run()
}
