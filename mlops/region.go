package mlops

// Region represents a target AWS region for client creation.
type Region interface {
	// resolve returns the AWS region string using the environment.
	resolve(env Environment) string
}

// localRegion uses the Lambda's AWS_REGION environment variable.
type localRegion struct{}

// resolve returns the AWS_REGION from the parsed environment.
func (localRegion) resolve(env Environment) string {
	return env.awsRegion()
}

// LocalRegion returns a Region that uses the Lambda's AWS_REGION.
func LocalRegion() Region {
	return localRegion{}
}

// fixedRegion uses a hardcoded region string.
type fixedRegion string

// resolve returns the fixed region string.
func (r fixedRegion) resolve(_ Environment) string {
	return string(r)
}

// FixedRegion returns a Region that uses a specific region string.
// Use this for operations that must target a region other than the one the
// function runs in, such as inspecting a deploy pipeline in another region.
func FixedRegion(region string) Region {
	return fixedRegion(region)
}
